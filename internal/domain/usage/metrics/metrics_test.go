package metrics

import "testing"

func TestNew(t *testing.T) {
	m := New(100, 50000, 25)
	if m.OracleRequests() != 100 {
		t.Errorf("OracleRequests() = %d", m.OracleRequests())
	}
	if m.Tokens() != 50000 {
		t.Errorf("Tokens() = %d", m.Tokens())
	}
	if m.CacheHits() != 25 {
		t.Errorf("CacheHits() = %d", m.CacheHits())
	}
}

func TestNew_Zero(t *testing.T) {
	m := New(0, 0, 0)
	if m.OracleRequests() != 0 || m.Tokens() != 0 || m.CacheHits() != 0 {
		t.Error("zero metrics should have zero values")
	}
}
