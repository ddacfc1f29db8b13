package feed

import "testing"

func TestRegistryCreateAssignsMonotonicIDs(t *testing.T) {
	r := NewRegistry()

	first := r.Create(CreateFeed{Name: "a", URL: "http://a", Frequency: 30})
	second := r.Create(CreateFeed{Name: "b", URL: "http://b", Frequency: 60})

	if first.ID != 1 {
		t.Fatalf("first.ID = %d, want 1", first.ID)
	}
	if second.ID != 2 {
		t.Fatalf("second.ID = %d, want 2", second.ID)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Get(42); ok {
		t.Fatal("Get() on empty registry returned ok=true")
	}
}

func TestRegistryUpdateUnknownReturnsFalse(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Update(42, CreateFeed{Name: "x"}); ok {
		t.Fatal("Update() on unknown id returned ok=true")
	}
}

func TestRegistryUpdateReplacesFields(t *testing.T) {
	r := NewRegistry()
	f := r.Create(CreateFeed{Name: "a", URL: "http://a", Frequency: 30})

	updated, ok := r.Update(f.ID, CreateFeed{Name: "a2", URL: "http://a2", Frequency: 90})
	if !ok {
		t.Fatal("Update() returned ok=false")
	}
	if updated.Name != "a2" || updated.URL != "http://a2" || updated.Frequency != 90 {
		t.Fatalf("Update() did not replace fields: %+v", updated)
	}
	if updated.ID != f.ID {
		t.Fatalf("Update() changed the id: got %d, want %d", updated.ID, f.ID)
	}
}

func TestRegistryDeleteRemovesFeed(t *testing.T) {
	r := NewRegistry()
	f := r.Create(CreateFeed{Name: "a"})

	deleted, ok := r.Delete(f.ID)
	if !ok || deleted.ID != f.ID {
		t.Fatalf("Delete() = %+v, %v", deleted, ok)
	}
	if _, ok := r.Get(f.ID); ok {
		t.Fatal("feed still present after Delete()")
	}
}

func TestRegistryDeleteUnknownReturnsFalse(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Delete(99); ok {
		t.Fatal("Delete() on unknown id returned ok=true")
	}
}

func TestRegistryListReturnsAllFeeds(t *testing.T) {
	r := NewRegistry()
	r.Create(CreateFeed{Name: "a"})
	r.Create(CreateFeed{Name: "b"})

	if got := len(r.List()); got != 2 {
		t.Fatalf("List() len = %d, want 2", got)
	}
}
