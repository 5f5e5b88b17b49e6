package serialize

import "testing"

type point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	data, err := Wrap("Point", point{X: 1, Y: 2})
	if err != nil {
		t.Fatalf("Wrap error: %v", err)
	}
	var out point
	if err := Into(data, "Point", &out); err != nil {
		t.Fatalf("Into error: %v", err)
	}
	if out != (point{X: 1, Y: 2}) {
		t.Fatalf("got %+v", out)
	}
}

func TestIntoRejectsWrongClass(t *testing.T) {
	data, _ := Wrap("Point", point{X: 1, Y: 2})
	var out point
	if err := Into(data, "Other", &out); err == nil {
		t.Fatalf("expected class mismatch error")
	}
}
