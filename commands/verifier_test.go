package commands

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestClassifyDangerousPatterns(t *testing.T) {
	v := NewVerifier(zap.NewNop())

	tests := []struct {
		command string
		reason  string
	}{
		{"rm -rf /", "filesystem root"},
		{"sudo rm file.txt", "sudo"},
		{"chmod 777 /home/user/file", "chmod 777"},
		{"mkfs.ext4 /dev/sda1", "mkfs"},
		{"echo pwned > /etc/passwd", "credential"},
		{"dd if=/dev/zero of=/dev/sda", "block device"},
		{":(){ :|:& };:", "fork bomb"},
	}

	for _, tt := range tests {
		dangerous, reason := v.Classify(tt.command)
		if !dangerous {
			t.Errorf("expected %q to be dangerous", tt.command)
			continue
		}
		if !strings.Contains(reason, tt.reason) {
			t.Errorf("expected reason for %q to mention %q, got %q", tt.command, tt.reason, reason)
		}
	}
}

func TestClassifyEssentialCommands(t *testing.T) {
	v := NewVerifier(zap.NewNop())

	for _, command := range []string{
		"mkdir -p /home/user/Sorted",
		"mv a.txt b.txt",
		"cp -r src dst",
	} {
		if dangerous, reason := v.Classify(command); dangerous {
			t.Errorf("expected %q to be safe, got rejection: %s", command, reason)
		}
	}
}

func TestClassifyEssentialStillPatternChecked(t *testing.T) {
	v := NewVerifier(zap.NewNop())
	// cp is essential but the redirect heuristic still applies.
	if dangerous, _ := v.Classify("cp /etc/shadow /tmp && cat x > /etc/hosts"); !dangerous {
		t.Error("expected system-directory redirect to reject despite essential base command")
	}
}

func TestClassifyAllowlist(t *testing.T) {
	v := NewVerifier(zap.NewNop())

	if dangerous, reason := v.Classify("ls -la"); dangerous {
		t.Errorf("expected ls to be safe, got %q", reason)
	}
	if dangerous, reason := v.Classify("echo hello"); dangerous {
		t.Errorf("expected echo to be safe, got %q", reason)
	}

	dangerous, reason := v.Classify("python script.py")
	if !dangerous {
		t.Error("expected unlisted base command to be rejected")
	}
	if !strings.Contains(reason, "python") {
		t.Errorf("expected reason to name the base command, got %q", reason)
	}
}

func TestClassifyPipeWithBackgrounding(t *testing.T) {
	v := NewVerifier(zap.NewNop())

	if dangerous, _ := v.Classify("cat access.log | nohup process"); !dangerous {
		t.Error("expected pipe with nohup to be rejected")
	}
	// Plain pipes and sequencing are fine.
	if dangerous, reason := v.Classify("cat access.log | grep error"); dangerous {
		t.Errorf("expected plain pipe to be safe, got %q", reason)
	}
	if dangerous, reason := v.Classify("mkdir -p x && mv a x"); dangerous {
		t.Errorf("expected && sequencing to be safe, got %q", reason)
	}
}

func TestVerifyWithContextScopesPaths(t *testing.T) {
	v := NewVerifier(zap.NewNop())

	safe, reason := v.VerifyWithContext(
		"mv /home/user/doc.txt /tmp/x",
		ExecContext{ApprovedDirs: []string{"/home/user"}},
	)
	if safe {
		t.Fatal("expected move into /tmp/x to be rejected")
	}
	if !strings.Contains(reason, "/tmp/x") {
		t.Errorf("expected reason to cite /tmp/x, got %q", reason)
	}

	safe, reason = v.VerifyWithContext(
		"mv /home/user/doc.txt /home/user/archive/doc.txt",
		ExecContext{ApprovedDirs: []string{"/home/user"}},
	)
	if !safe {
		t.Errorf("expected descendant paths to be accepted, got %q", reason)
	}
}

func TestVerifyWithContextResolvesRelativePaths(t *testing.T) {
	v := NewVerifier(zap.NewNop())
	approved := t.TempDir()

	safe, reason := v.VerifyWithContext(
		"mkdir sub/dir",
		ExecContext{ApprovedDirs: []string{approved}, WorkingDir: approved},
	)
	if !safe {
		t.Errorf("expected relative path under the working dir to be accepted, got %q", reason)
	}

	safe, _ = v.VerifyWithContext(
		"touch relative/../escape.txt",
		ExecContext{ApprovedDirs: []string{approved}, WorkingDir: approved},
	)
	if !safe {
		t.Error("expected a dot segment that stays inside the working dir to be accepted")
	}
}

func TestVerifyWithContextResolvesRelativeApprovedDirs(t *testing.T) {
	v := NewVerifier(zap.NewNop())

	// The approved dir is relative; it must resolve against the context's
	// working dir, not the process cwd.
	safe, reason := v.VerifyWithContext(
		"mv /srv/box/projects/a.txt /srv/box/projects/b.txt",
		ExecContext{ApprovedDirs: []string{"projects"}, WorkingDir: "/srv/box"},
	)
	if !safe {
		t.Errorf("expected paths under the resolved approved dir to be accepted, got %q", reason)
	}

	safe, _ = v.VerifyWithContext(
		"mv /srv/elsewhere/a.txt /srv/box/projects/a.txt",
		ExecContext{ApprovedDirs: []string{"projects"}, WorkingDir: "/srv/box"},
	)
	if safe {
		t.Error("expected a source outside the resolved approved dir to be rejected")
	}
}

func TestVerifyWithContextSkipsNonMutatingCommands(t *testing.T) {
	v := NewVerifier(zap.NewNop())

	safe, reason := v.VerifyWithContext("ls /anywhere/at/all", ExecContext{})
	if !safe {
		t.Errorf("expected ls to skip path scoping, got %q", reason)
	}
}

func TestVerifyWithContextParseFailure(t *testing.T) {
	strict := NewVerifier(zap.NewNop())
	safe, reason := strict.VerifyWithContext(`mv "unterminated /a/b`, ExecContext{})
	if safe {
		t.Fatal("expected strict verifier to reject unparseable arguments")
	}
	if !strings.Contains(reason, "parse") {
		t.Errorf("expected parse failure reason, got %q", reason)
	}

	permissive := NewVerifier(zap.NewNop()).WithPermissiveParse(true)
	if safe, _ := permissive.VerifyWithContext(`mv "unterminated /a/b`, ExecContext{}); !safe {
		t.Error("expected permissive verifier to pass unparseable arguments")
	}
}
