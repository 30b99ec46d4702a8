package cmd

import (
	"path/filepath"
	"testing"
)

func TestResolveDir(t *testing.T) {
	dir := t.TempDir()

	got, rest, err := resolveDir([]string{dir, "some", "query"})
	if err != nil {
		t.Fatal(err)
	}
	if got != dir {
		t.Fatalf("dir = %s", got)
	}
	if len(rest) != 2 || rest[0] != "some" {
		t.Fatalf("rest = %v", rest)
	}

	// a first arg that is not a directory is part of the query
	got, rest, err = resolveDir([]string{"no-such-dir-here", "query"})
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) {
		t.Fatalf("dir not absolute: %s", got)
	}
	if len(rest) != 2 {
		t.Fatalf("rest = %v", rest)
	}

	got, rest, err = resolveDir(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !filepath.IsAbs(got) || len(rest) != 0 {
		t.Fatalf("got %s, rest %v", got, rest)
	}
}

func TestDisplayPath(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "sub", "a.txt")
	if displayPath(root, inside) != filepath.Join("sub", "a.txt") {
		t.Fatalf("got %s", displayPath(root, inside))
	}
	outside := "/elsewhere/b.txt"
	if displayPath(root, outside) != outside {
		t.Fatalf("got %s", displayPath(root, outside))
	}
}
