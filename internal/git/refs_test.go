package git

import (
	"testing"
)

func TestRefs(t *testing.T) {
	repo := newTestRepo(t)
	repo.write("a.txt", "one\n")
	first := repo.commit("first")
	repo.write("a.txt", "two\n")
	second := repo.commit("second")
	repo.tag("v1.0", first, false)
	repo.tag("v2.0", second, true)
	svc := repo.open()

	refs, err := svc.Refs()
	if err != nil {
		t.Fatalf("Refs: %v", err)
	}
	if len(refs) != 3 {
		t.Fatalf("unexpected ref count: %+v", refs)
	}
	assertHasRef(t, refs, Ref{Hash: second, Kind: RefKindBranch, Name: "master"})
	assertHasRef(t, refs, Ref{Hash: first, Kind: RefKindTag, Name: "v1.0"})
	// v2.0 is annotated and must be peeled to the commit.
	assertHasRef(t, refs, Ref{Hash: second, Kind: RefKindTag, Name: "v2.0"})
	if refs[0].Kind != RefKindBranch {
		t.Fatalf("branches should sort first: %+v", refs)
	}
}

func TestRefLabels_IncludesHEADAndBranch(t *testing.T) {
	repo := newTestRepo(t)
	repo.write("a.txt", "one\n")
	hash := repo.commit("first")
	repo.tag("v1", hash, false)
	svc := repo.open()

	labels, err := svc.RefLabels()
	if err != nil {
		t.Fatalf("RefLabels: %v", err)
	}
	vals := labels[hash]
	if len(vals) != 3 {
		t.Fatalf("expected three labels, got %+v", vals)
	}
	if vals[0] != "HEAD -> master" {
		t.Fatalf("expected HEAD label first, got %+v", vals)
	}
	if !contains(vals, "master") || !contains(vals, "tag: v1") {
		t.Fatalf("missing labels in %+v", vals)
	}
	if svc.HeadBranch() != "master" {
		t.Fatalf("HeadBranch = %q", svc.HeadBranch())
	}
}

func TestRefLabelsEmptyRepository(t *testing.T) {
	svc := newTestRepo(t).open()
	labels, err := svc.RefLabels()
	if err != nil {
		t.Fatalf("RefLabels: %v", err)
	}
	if len(labels) != 0 {
		t.Fatalf("expected no labels, got %+v", labels)
	}
}

func contains(vals []string, want string) bool {
	for _, v := range vals {
		if v == want {
			return true
		}
	}
	return false
}

func assertHasRef(t *testing.T, refs []Ref, want Ref) {
	t.Helper()
	for _, got := range refs {
		if got.Hash == want.Hash && got.Kind == want.Kind && got.Name == want.Name {
			return
		}
	}
	t.Fatalf("missing ref: %+v (got=%+v)", want, refs)
}
