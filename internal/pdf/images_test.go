package pdf

import "testing"

func TestEligible(t *testing.T) {
	cases := []struct {
		name  string
		block ImageBlock
		want  bool
	}{
		{
			name:  "at both thresholds",
			block: ImageBlock{PxWidth: 20, PxHeight: 20, XRes: 36, YRes: 36},
			want:  true,
		},
		{
			name:  "one pixel short in width",
			block: ImageBlock{PxWidth: 19, PxHeight: 20, XRes: 300, YRes: 300},
			want:  false,
		},
		{
			name:  "one pixel short in height",
			block: ImageBlock{PxWidth: 20, PxHeight: 19, XRes: 300, YRes: 300},
			want:  false,
		},
		{
			name:  "resolution just below threshold",
			block: ImageBlock{PxWidth: 100, PxHeight: 100, XRes: 35.9, YRes: 36},
			want:  false,
		},
		{
			name:  "large and sharp",
			block: ImageBlock{PxWidth: 1024, PxHeight: 768, XRes: 150, YRes: 150},
			want:  true,
		},
		{
			name:  "big pixels stretched too thin",
			block: ImageBlock{PxWidth: 50, PxHeight: 50, XRes: 18, YRes: 18},
			want:  false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.block.Eligible(); got != tc.want {
				t.Errorf("Eligible() = %v, want %v for %+v", got, tc.want, tc.block)
			}
		})
	}
}

func TestMatrixMult(t *testing.T) {
	// Scale then translate: the translation must not be scaled.
	scale := matrix{200, 0, 0, 100, 0, 0}
	translate := matrix{1, 0, 0, 1, 50, 60}

	m := scale.mult(translate)
	if m[0] != 200 || m[3] != 100 {
		t.Errorf("Scale lost: %+v", m)
	}
	if m[4] != 50 || m[5] != 60 {
		t.Errorf("Translation wrong: %+v", m)
	}
}
