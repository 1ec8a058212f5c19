package address

import "testing"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	baseIDs := []int64{0, 1, 12345, 9_999_999_999}
	for _, band := range Bands() {
		for _, base := range baseIDs {
			encoded, err := Encode(base, band)
			if err != nil {
				t.Fatalf("Encode(%d, %s): %v", base, band, err)
			}
			gotBase, gotBand, err := Decode(encoded)
			if err != nil {
				t.Fatalf("Decode(%d): %v", encoded, err)
			}
			if gotBase != base || gotBand != band {
				t.Errorf("round trip (%d, %s) -> %d -> (%d, %s)", base, band, encoded, gotBase, gotBand)
			}
		}
	}
}

func TestEncodeKnownValue(t *testing.T) {
	encoded, err := Encode(12345, Band720p)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if encoded != 10_000_012_345 {
		t.Errorf("Encode(12345, 720p) = %d, want 10000012345", encoded)
	}

	base, band, err := Decode(10_000_012_345)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if base != 12345 || band != Band720p {
		t.Errorf("Decode(10000012345) = (%d, %s), want (12345, 720p)", base, band)
	}
}

func TestEncodeRejectsOversizedBaseID(t *testing.T) {
	if _, err := Encode(10_000_000_000, BandSource); err == nil {
		t.Error("expected error for base id at offset boundary")
	}
	if _, err := Encode(-1, BandSource); err == nil {
		t.Error("expected error for negative base id")
	}
}

func TestEncodeRejectsUnknownBand(t *testing.T) {
	if _, err := Encode(1, Band("1080p")); err == nil {
		t.Error("expected error for unsupported band")
	}
}

func TestDecodeRejectsOutOfRange(t *testing.T) {
	if _, _, err := Decode(-5); err == nil {
		t.Error("expected error for negative id")
	}
	if _, _, err := Decode(30_000_000_000); err == nil {
		t.Error("expected error for id beyond the highest band")
	}
}

func TestResolverLookupAndRefresh(t *testing.T) {
	var r *Resolver
	refreshed := 0
	r = NewResolver(func() {
		refreshed++
		r.Learn(42, "latechannel")
	})

	r.Learn(7, "somechannel")

	key, err := r.Lookup(7)
	if err != nil || key != "somechannel" {
		t.Errorf("Lookup(7) = (%q, %v), want somechannel", key, err)
	}
	if refreshed != 0 {
		t.Error("refresh must not run on a cache hit")
	}

	key, err = r.Lookup(42)
	if err != nil || key != "latechannel" {
		t.Errorf("Lookup(42) after refresh = (%q, %v)", key, err)
	}
	if refreshed != 1 {
		t.Errorf("refresh ran %d times, want 1", refreshed)
	}

	if _, err := r.Lookup(99); err == nil {
		t.Error("expected error for unknown base id after refresh")
	}
}
