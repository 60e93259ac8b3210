package scoreview

import (
	"math"
	"testing"
)

func TestOffset_Formula(t *testing.T) {
	t.Parallel()

	c := 2 * math.Pi * 85

	cases := []struct {
		percent float64
		want    float64
	}{
		{0, c},
		{50, c * 0.5},
		{100, 0},
		{25, c * 0.75},
	}
	for _, tc := range cases {
		got := Offset(tc.percent)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Offset(%v)=%v want %v", tc.percent, got, tc.want)
		}
	}

	// 越界输入收敛
	if got := Offset(-5); got != c {
		t.Fatalf("Offset(-5)=%v want full circumference", got)
	}
	if got := Offset(120); got != 0 {
		t.Fatalf("Offset(120)=%v want 0", got)
	}
}

func TestColors_Stops(t *testing.T) {
	t.Parallel()

	from, _ := Colors(80)
	if from != "#f87171" {
		t.Fatalf("percent>50 should be red-toned, got %s", from)
	}
	from, to := Colors(30)
	if from != "#fbbf24" || to != "#a855f7" {
		t.Fatalf("percent>25 should be amber/purple, got %s/%s", from, to)
	}
	from, _ = Colors(25)
	if from != "#34d399" {
		t.Fatalf("percent<=25 should be green/cyan, got %s", from)
	}
}

func TestBuild_Composes(t *testing.T) {
	t.Parallel()

	r := Build(50)
	if r.Radius != 85 {
		t.Fatalf("radius=%v", r.Radius)
	}
	if math.Abs(r.Circumference-2*math.Pi*85) > 1e-9 {
		t.Fatalf("circumference=%v", r.Circumference)
	}
	if math.Abs(r.Offset-r.Circumference/2) > 1e-9 {
		t.Fatalf("offset=%v", r.Offset)
	}
}
