package model

import "testing"

func TestToolVisibleAt(t *testing.T) {
	north := "north site"
	scoped := &Tool{OriginWorksite: &north}
	shared := &Tool{}

	if !scoped.VisibleAt("north site") {
		t.Error("expected tool to be visible at its own worksite")
	}
	if scoped.VisibleAt("south site") {
		t.Error("expected tool not to be visible at another worksite")
	}
	if !scoped.VisibleAt("") {
		t.Error("expected empty worksite to see everything")
	}

	// Shared-pool tools are visible everywhere.
	if !shared.VisibleAt("north site") || !shared.VisibleAt("") {
		t.Error("expected shared tool to be visible everywhere")
	}
}
