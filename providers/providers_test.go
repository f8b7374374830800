package providers

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestResolve_KnownProvider(t *testing.T) {
	t.Parallel()
	got, ok := Resolve("pinterest.board_feed")
	if !ok {
		t.Fatal("expected pinterest.board_feed to be recognised")
	}
	want := Details{
		Provider: PinterestBoardFeed,
		Label:    "Pinterest",
		Icon:     pinterestRemoteIcon,
	}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestResolve_UnknownProviderFallsBack(t *testing.T) {
	t.Parallel()
	got, ok := Resolve("myspace.top_friends")
	if ok {
		t.Fatal("did not expect an unmapped provider to be recognised")
	}
	want := Details{
		Provider: Unknown,
		Label:    "myspace.top_friends",
		Icon:     PlaceholderIcon,
	}
	if !cmp.Equal(want, got) {
		t.Error(cmp.Diff(want, got))
	}
}

func TestResolve_EmptyName(t *testing.T) {
	t.Parallel()
	got, ok := Resolve("")
	if ok || got.Icon != PlaceholderIcon {
		t.Errorf("empty provider should resolve to the placeholder, got %+v", got)
	}
}

func TestAll_EveryProviderHasAnIcon(t *testing.T) {
	t.Parallel()
	for _, d := range All() {
		if d.Icon == "" || d.Label == "" {
			t.Errorf("%s is missing presentation details", d.Provider)
		}
		if _, ok := Resolve(string(d.Provider)); !ok {
			t.Errorf("%s does not resolve to itself", d.Provider)
		}
	}
}
