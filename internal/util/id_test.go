package util

import "testing"

func TestNewIDPrefix(t *testing.T) {
	id := NewID("pub")
	if len(id) != len("pub_")+32 {
		t.Fatalf("NewID length = %d, want %d", len(id), len("pub_")+32)
	}
	if id[:4] != "pub_" {
		t.Fatalf("NewID prefix = %q, want %q", id[:4], "pub_")
	}
	if NewID("") == NewID("") {
		t.Fatal("NewID returned the same value twice")
	}
}

func TestNewUniqueHash(t *testing.T) {
	hash := NewUniqueHash()
	if len(hash) != 12 {
		t.Fatalf("NewUniqueHash length = %d, want 12", len(hash))
	}
	for _, r := range hash {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			t.Fatalf("NewUniqueHash contains non-hex rune %q", r)
		}
	}
	if NewUniqueHash() == NewUniqueHash() {
		t.Fatal("NewUniqueHash returned the same value twice")
	}
}
