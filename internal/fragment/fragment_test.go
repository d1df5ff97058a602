package fragment

import "testing"

func TestEmptyHasNoContent(t *testing.T) {
	if Empty().HasContent() {
		t.Fatal("expected empty fragment to report no content")
	}
}

func TestPlusEmptyAbsorbing(t *testing.T) {
	a := Info("x", "y")

	if got := Plus(a, Empty()); got.Title != a.Title || got.Content != a.Content {
		t.Fatalf("A + Empty should equal A, got %+v", got)
	}
	if got := Plus(Empty(), a); got.Title != a.Title || got.Content != a.Content {
		t.Fatalf("Empty + A should equal A, got %+v", got)
	}
	if Plus(Empty(), Empty()).HasContent() {
		t.Fatal("Empty + Empty should have no content")
	}
}

func TestComposeEmptyAbsorbing(t *testing.T) {
	// Scenario 8: Empty + Info("x","y") + Empty renders exactly as Info("x","y").
	composed := Compose(Empty(), Info("x", "y"), Empty())
	if composed.Title != "x" || composed.Content != "y" {
		t.Fatalf("expected composed fragment to equal Info(x,y), got %+v", composed)
	}
}

func TestComposeAllEmptyReturnsEmpty(t *testing.T) {
	if Compose(Empty(), Empty()).HasContent() {
		t.Fatal("expected Compose of all-empty to be empty")
	}
}

func TestWithHeaderNoOpOnEmpty(t *testing.T) {
	got := WithHeader(Empty(), "Title")
	if got.HasContent() {
		t.Fatal("expected WithHeader on empty fragment to remain empty")
	}
}

func TestWithHeaderWrapsNonEmpty(t *testing.T) {
	got := WithHeader(Info("x", "y"), "Title")
	if got.Title != "Title" || len(got.Children) != 1 {
		t.Fatalf("got %+v", got)
	}
}

func TestConditionalSectionSuppressesEmptyHeader(t *testing.T) {
	got := ConditionalSection(
		func() Fragment { return Empty() },
		func() string { return "Should Not Appear" },
	)
	if got.HasContent() {
		t.Fatal("expected suppressed header on empty content")
	}
}

func TestConditionalSectionWrapsNonEmptyContent(t *testing.T) {
	got := ConditionalSection(
		func() Fragment { return Info("x", "y") },
		func() string { return "Header" },
	)
	if got.Title != "Header" {
		t.Fatalf("got %+v", got)
	}
}

func TestHasContentTransitiveThroughChildren(t *testing.T) {
	parent := WithChildren("", []Fragment{Info("x", "y")}, 0)
	if !parent.HasContent() {
		t.Fatal("expected parent with non-empty child to have content")
	}
}

func TestFactoryDefaultOrders(t *testing.T) {
	if Error("e", "c").Order != 10 {
		t.Fatal("Error default order should be 10")
	}
	if Warning("w", "c").Order != 50 {
		t.Fatal("Warning default order should be 50")
	}
	if Info("i", "c").Order != 200 {
		t.Fatal("Info default order should be 200")
	}
	if Header("h").Order != 0 {
		t.Fatal("Header default order should be 0")
	}
}
