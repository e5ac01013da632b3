package main

import (
	"testing"

	"cloud.google.com/go/civil"
)

func mustDate(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("mustDate(%q): %v", s, err)
	}
	return d
}
