package heuristic

import "github.com/ramyadhadidi/DPC2/sandbox"

// testSandbox builds a sandbox sized like the selector would at
// initialization (see selector.SandboxSizeEach), with FalsePositive=0 so
// a randomized Test() miss needs a draw of exactly 0 (1 in 1000).
func testSandbox(id ID) sandbox.Sandbox {
	const sandboxSizeEach = 256
	return sandbox.New(sandboxSizeEach*SandboxFactor(id)+1, 0, 1)
}
