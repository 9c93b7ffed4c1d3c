package git

import (
	"errors"
	"strings"
	"testing"
)

func TestFileDiff(t *testing.T) {
	repo := newTestRepo(t)
	repo.write("a.txt", "one\ntwo\nthree\n")
	repo.write("keep.txt", "same\n")
	first := repo.commit("first")
	repo.write("a.txt", "one\n2\nthree\n")
	repo.write("new.txt", "fresh\n")
	repo.commit("second")
	svc := repo.open()
	head := repo.resolve(svc, "HEAD")

	diff, err := svc.FileDiff(head, "a.txt", 0)
	if err != nil {
		t.Fatalf("FileDiff: %v", err)
	}
	for _, want := range []string{"diff --git a/a.txt b/a.txt", "--- a/a.txt", "+++ b/a.txt", "-two", "+2"} {
		if !strings.Contains(diff, want) {
			t.Fatalf("diff missing %q:\n%s", want, diff)
		}
	}

	unchanged, err := svc.FileDiff(head, "keep.txt", 0)
	if err != nil || unchanged != "" {
		t.Fatalf("expected empty diff for unchanged file, got %q, %v", unchanged, err)
	}

	added, err := svc.FileDiff(head, "new.txt", 0)
	if err != nil {
		t.Fatalf("FileDiff new: %v", err)
	}
	if !strings.Contains(added, "new file mode") || !strings.Contains(added, "--- /dev/null") || !strings.Contains(added, "+fresh") {
		t.Fatalf("unexpected diff for added file:\n%s", added)
	}

	root := repo.resolve(svc, first)
	initial, err := svc.FileDiff(root, "keep.txt", 0)
	if err != nil {
		t.Fatalf("FileDiff root: %v", err)
	}
	if !strings.Contains(initial, "+same") {
		t.Fatalf("root commit should diff against empty tree:\n%s", initial)
	}
}

func TestFileDiffDeletedAndMissing(t *testing.T) {
	repo := newTestRepo(t)
	repo.write("gone.txt", "bye\n")
	repo.write("stay.txt", "hi\n")
	repo.commit("first")
	repo.remove("gone.txt")
	repo.commit("second")
	svc := repo.open()
	head := repo.resolve(svc, "HEAD")

	diff, err := svc.FileDiff(head, "gone.txt", 0)
	if err != nil {
		t.Fatalf("FileDiff: %v", err)
	}
	if !strings.Contains(diff, "deleted file mode") || !strings.Contains(diff, "-bye") {
		t.Fatalf("unexpected diff for deleted file:\n%s", diff)
	}
	if _, err := svc.FileDiff(head, "never.txt", 0); !errors.Is(err, ErrPathNotFound) {
		t.Fatalf("expected ErrPathNotFound, got %v", err)
	}
}

func TestFileDiffBinary(t *testing.T) {
	repo := newTestRepo(t)
	repo.write("data.bin", "a\x00b")
	repo.commit("first")
	repo.write("data.bin", "a\x00c")
	repo.commit("second")
	svc := repo.open()
	head := repo.resolve(svc, "HEAD")

	diff, err := svc.FileDiff(head, "data.bin", 0)
	if err != nil {
		t.Fatalf("FileDiff: %v", err)
	}
	if !strings.Contains(diff, "(binary files differ)") {
		t.Fatalf("expected binary marker:\n%s", diff)
	}
}

func TestFileDiffTooLarge(t *testing.T) {
	repo := newTestRepo(t)
	repo.write("big.txt", strings.Repeat("line\n", 100))
	repo.write("small.txt", "a\n")
	repo.commit("first")
	repo.write("big.txt", strings.Repeat("line\n", 99)+"last\n")
	repo.write("small.txt", "b\n")
	repo.commit("second")
	svc := repo.open()
	head := repo.resolve(svc, "HEAD")

	if _, err := svc.FileDiff(head, "big.txt", 64); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("expected ErrTooLarge, got %v", err)
	}
	diff, err := svc.FileDiff(head, "small.txt", 64)
	if err != nil || !strings.Contains(diff, "+b") {
		t.Fatalf("small file diff = %q, %v", diff, err)
	}
	if diff, err := svc.FileDiff(head, "big.txt", 0); err != nil || !strings.Contains(diff, "+last") {
		t.Fatalf("unlimited diff = %q, %v", diff, err)
	}
}
