package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/wyfcoding/quant/xerrors"
	"gonum.org/v1/gonum/stat"
)

func TestGeneratorReproducible(t *testing.T) {
	a := NewGenerator(42).Normals(100)
	b := NewGenerator(42).Normals(100)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("draw %d differs: %v vs %v", i, a[i], b[i])
		}
	}

	c := NewGenerator(43).Normals(100)
	same := 0
	for i := range a {
		if a[i] == c[i] {
			same++
		}
	}
	if same == len(a) {
		t.Errorf("different seeds produced identical streams")
	}
}

func TestNormalsMoments(t *testing.T) {
	x := NewGenerator(1).Normals(100000)
	mean, std := stat.MeanStdDev(x, nil)
	if math.Abs(mean) > 0.02 {
		t.Errorf("mean = %v, want ~0", mean)
	}
	if math.Abs(std-1) > 0.02 {
		t.Errorf("std = %v, want ~1", std)
	}
	if got := NewGenerator(1).Normals(0); got != nil {
		t.Errorf("Normals(0) = %v, want nil", got)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	p1, p2 := NewGenerator(9), NewGenerator(9)
	c1, c2 := p1.Split(), p2.Split()
	if c1.Normal() != c2.Normal() {
		t.Errorf("children of equal parents diverged")
	}
	if p1.Split().Normal() == c1.Normal() {
		t.Errorf("successive children share a stream")
	}
}

func TestAllocations(t *testing.T) {
	gen := NewGenerator(3)
	rows, err := gen.Allocations(500, 4)
	if err != nil {
		t.Fatalf("Allocations: %v", err)
	}
	if len(rows) != 500 {
		t.Fatalf("rows = %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 4 {
			t.Fatalf("row %d has %d entries", i, len(row))
		}
		var sum float64
		for _, w := range row {
			if w < 0 || w > 1 {
				t.Fatalf("row %d entry %v out of [0,1]", i, w)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-12 {
			t.Fatalf("row %d sums to %v", i, sum)
		}
	}

	next := rows[1][0]
	rows[0] = append(rows[0], 7)
	if rows[1][0] != next {
		t.Errorf("appending to a row overwrote its neighbour")
	}
}

func TestAllocationsRejectsBadShape(t *testing.T) {
	gen := NewGenerator(3)
	for _, tc := range []struct{ k, m int }{{0, 3}, {3, 0}, {-1, 2}} {
		if _, err := gen.Allocations(tc.k, tc.m); !errors.Is(err, xerrors.ErrInvalidParams) {
			t.Errorf("Allocations(%d, %d) err = %v, want ErrInvalidParams", tc.k, tc.m, err)
		}
	}
}
