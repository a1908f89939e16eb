package fractal

// Pass is one sweep over the image: every Stride-th pixel is evaluated with
// IterationCap iterations and painted over a Stride×Stride block.
type Pass struct {
	IterationCap int
	Stride       int
}

// PassPlan is the refinement schedule of a render. Strides strictly decrease
// and the last pass always has stride 1.
type PassPlan []Pass

// singlePassLimit is the largest target rendered in one full resolution pass.
const singlePassLimit = 100

// Plan derives the pass schedule for a target iteration count.
func Plan(targetMaxIterations int) PassPlan {
	if targetMaxIterations <= singlePassLimit {
		return PassPlan{{IterationCap: targetMaxIterations, Stride: 1}}
	}
	return PassPlan{
		{IterationCap: targetMaxIterations / 4, Stride: 4},
		{IterationCap: targetMaxIterations / 2, Stride: 2},
		{IterationCap: targetMaxIterations, Stride: 1},
	}
}
