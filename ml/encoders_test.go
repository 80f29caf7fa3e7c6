package ml

import "testing"

func testTable() *EncoderTable {
	return NewEncoderTable(map[string]map[string]int{
		"gender":          {"Female": 0, "Male": 1},
		"Partner":         {"No": 0, "Yes": 1},
		"InternetService": {"DSL": 0, "Fiber optic": 1, "No": 2},
	})
}

func TestEncodeExactMatch(t *testing.T) {
	table := testTable()
	if code := table.Encode("gender", "Male"); code != 1 {
		t.Fatalf("expected 1, got %d", code)
	}
	if code := table.Encode("InternetService", "Fiber optic"); code != 1 {
		t.Fatalf("expected 1, got %d", code)
	}
}

func TestEncodeCaseInsensitive(t *testing.T) {
	table := testTable()
	if code := table.Encode("GENDER", "male"); code != 1 {
		t.Fatalf("expected field and value folding, got %d", code)
	}
	if code := table.Encode("internetservice", "fiber OPTIC"); code != 1 {
		t.Fatalf("expected 1, got %d", code)
	}
}

func TestEncodeNeverFails(t *testing.T) {
	table := testTable()
	// unknown field, unknown value, both: all must degrade to 0
	if code := table.Encode("Contract", "Two year"); code != 0 {
		t.Fatalf("unknown field must return 0, got %d", code)
	}
	if code := table.Encode("gender", "Unknown"); code != 0 {
		t.Fatalf("unknown value must return 0, got %d", code)
	}
	if code := table.Encode("", ""); code != 0 {
		t.Fatalf("empty lookup must return 0, got %d", code)
	}

	var nilTable *EncoderTable
	if code := nilTable.Encode("gender", "Male"); code != 0 {
		t.Fatalf("nil table must return 0, got %d", code)
	}
}

func TestLoadEncodersRejectsBadArtifacts(t *testing.T) {
	if _, err := LoadEncoders("does_not_exist.json"); err == nil {
		t.Fatal("expected error for missing artifact")
	}
}
