// Package enhance implements the fixed LUT -> gamma -> CLAHE -> sharpen
// image-enhancement chain of spec.md §4.4. Apply is a pure function of its
// inputs; the Pipeline type only exists to cache the gocv objects (CLAHE
// operator, gamma table, sharpen kernel) that are expensive to rebuild every
// frame and that spec.md requires be rebuilt only when their parameters
// change.
package enhance

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/haloview/camstream/internal/camera"
	"github.com/haloview/camstream/internal/params"
)

// sharpenKernelValues is the fixed 3x3 kernel from spec.md §4.4 step 4: center
// weight 1.8, neighbors -0.1, kernel sum 1.0.
var sharpenKernelValues = [9]float32{
	-0.1, -0.1, -0.1,
	-0.1, 1.8, -0.1,
	-0.1, -0.1, -0.1,
}

// Pipeline applies the enhancement chain for one camera. It is owned
// exclusively by that camera's processor and must never be shared across
// cameras: its cached CLAHE operator and gamma table are not safe for
// concurrent use.
type Pipeline struct {
	lutMat gocv.Mat
	hasLUT bool

	clahe         gocv.CLAHE
	claheBuilt    bool
	claheClip     float64
	claheGridCols int
	claheGridRows int

	gammaTable gocv.Mat
	gammaBuilt bool
	gammaValue float64

	sharpenKernel gocv.Mat
}

// New builds a Pipeline. lut may be nil, meaning the camera has no valid
// LUT and the LUT stage is always skipped for it regardless of parameters.
func New(lut *camera.LUT) *Pipeline {
	p := &Pipeline{}

	kernel, err := gocv.NewMatFromBytes(3, 3, gocv.MatTypeCV32FC1, float32SliceToBytes(sharpenKernelValues[:]))
	if err == nil {
		p.sharpenKernel = kernel
	} else {
		p.sharpenKernel = gocv.NewMat()
	}

	if lut != nil {
		flat := make([]byte, camera.LUTSize*camera.LUTChannels)
		for v := 0; v < camera.LUTSize; v++ {
			for c := 0; c < camera.LUTChannels; c++ {
				flat[v*camera.LUTChannels+c] = lut[v][c]
			}
		}
		m, err := gocv.NewMatFromBytes(camera.LUTSize, 1, gocv.MatTypeCV8UC3, flat)
		if err == nil {
			p.lutMat = m
			p.hasLUT = true
		}
	}

	return p
}

// Close releases the gocv resources owned by the pipeline.
func (p *Pipeline) Close() {
	if p.hasLUT {
		p.lutMat.Close()
	}
	if p.claheBuilt {
		p.clahe.Close()
	}
	if p.gammaBuilt {
		p.gammaTable.Close()
	}
	p.sharpenKernel.Close()
}

// Apply runs the enhancement chain on a width*height*3 BGR raster and
// returns a newly allocated enhanced raster of the same shape. par is a
// snapshot read once at entry (spec.md §4.4).
func (p *Pipeline) Apply(src []byte, width, height int, par params.Params) ([]byte, error) {
	mat, err := gocv.NewMatFromBytes(height, width, gocv.MatTypeCV8UC3, src)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	cur := mat.Clone()

	if p.hasLUT && par.LUTEnabled {
		next := p.applyLUT(cur, par.LUTStrength)
		cur.Close()
		cur = next
	}

	if par.Gamma != 1.0 {
		next := p.applyGamma(cur, par.Gamma)
		cur.Close()
		cur = next
	}

	if par.CLAHEEnabled {
		next := p.applyCLAHE(cur, par.CLAHEClipLimit, par.CLAHETileGridSize)
		cur.Close()
		cur = next
	}

	next := p.applySharpen(cur)
	cur.Close()
	cur = next
	defer cur.Close()

	return cur.ToBytes(), nil
}

// applyLUT implements spec.md §4.4 step 1.
func (p *Pipeline) applyLUT(src gocv.Mat, strength float64) gocv.Mat {
	mapped := gocv.NewMat()
	defer mapped.Close()
	gocv.LUT(src, p.lutMat, &mapped)

	if strength >= 1.0 {
		return mapped.Clone()
	}

	out := gocv.NewMat()
	gocv.AddWeighted(src, 1-strength, mapped, strength, 0, &out)
	return out
}

// applyGamma implements spec.md §4.4 step 2. The 256-entry table is cached
// and only rebuilt when gamma changes.
func (p *Pipeline) applyGamma(src gocv.Mat, gamma float64) gocv.Mat {
	if !p.gammaBuilt || p.gammaValue != gamma {
		if p.gammaBuilt {
			p.gammaTable.Close()
		}
		p.gammaTable = buildGammaTable(gamma)
		p.gammaValue = gamma
		p.gammaBuilt = true
	}

	out := gocv.NewMat()
	gocv.LUT(src, p.gammaTable, &out)
	return out
}

func buildGammaTable(gamma float64) gocv.Mat {
	table := make([]byte, 256)
	inv := 1.0 / gamma
	for i := 0; i < 256; i++ {
		v := math.Round(math.Pow(float64(i)/255.0, inv) * 255.0)
		table[i] = clampByte(v)
	}
	m, err := gocv.NewMatFromBytes(256, 1, gocv.MatTypeCV8UC1, table)
	if err != nil {
		return gocv.NewMat()
	}
	return m
}

// applyCLAHE implements spec.md §4.4 step 3: BGR->LAB, CLAHE on L only,
// merge, LAB->BGR. The CLAHE operator is replaced only when clip limit or
// tile grid size changes.
func (p *Pipeline) applyCLAHE(src gocv.Mat, clip float64, grid params.CLAHEGrid) gocv.Mat {
	if !p.claheBuilt || p.claheClip != clip || p.claheGridCols != grid.Cols || p.claheGridRows != grid.Rows {
		if p.claheBuilt {
			p.clahe.Close()
		}
		p.clahe = gocv.NewCLAHEWithParams(clip, image.Pt(grid.Cols, grid.Rows))
		p.claheClip = clip
		p.claheGridCols = grid.Cols
		p.claheGridRows = grid.Rows
		p.claheBuilt = true
	}

	lab := gocv.NewMat()
	defer lab.Close()
	gocv.CvtColor(src, &lab, gocv.ColorBGRToLab)

	channels := gocv.Split(lab)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()
	if len(channels) != 3 {
		return src.Clone()
	}

	l2 := gocv.NewMat()
	defer l2.Close()
	p.clahe.Apply(channels[0], &l2)

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge([]gocv.Mat{l2, channels[1], channels[2]}, &merged)

	out := gocv.NewMat()
	gocv.CvtColor(merged, &out, gocv.ColorLabToBGR)
	return out
}

// applySharpen implements spec.md §4.4 step 4.
func (p *Pipeline) applySharpen(src gocv.Mat) gocv.Mat {
	out := gocv.NewMat()
	gocv.Filter2D(src, &out, -1, p.sharpenKernel, image.Pt(-1, -1), 0, gocv.BorderDefault)
	return out
}

func clampByte(v float64) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func float32SliceToBytes(v []float32) []byte {
	out := make([]byte, len(v)*4)
	for i, f := range v {
		bits := math.Float32bits(f)
		out[i*4] = byte(bits)
		out[i*4+1] = byte(bits >> 8)
		out[i*4+2] = byte(bits >> 16)
		out[i*4+3] = byte(bits >> 24)
	}
	return out
}
