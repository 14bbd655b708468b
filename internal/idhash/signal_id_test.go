package idhash

import "testing"

func TestComputeSignalID(t *testing.T) {
	id := ComputeSignalID("momentum_trend", "005930", "20240215", 312)
	if len(id) != 64 {
		t.Fatalf("id length = %d, want 64", len(id))
	}
	if id != ComputeSignalID("momentum_trend", "005930", "20240215", 312) {
		t.Fatal("same inputs must produce the same id")
	}
	if id == ComputeSignalID("align_momentum", "005930", "20240215", 312) {
		t.Fatal("different strategy must change the id")
	}
	if id == ComputeSignalID("momentum_trend", "005930", "20240215", 313) {
		t.Fatal("different index must change the id")
	}
}
