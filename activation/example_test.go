// SPDX-License-Identifier: MIT

package activation_test

import (
	"fmt"

	"github.com/katalvlaran/algokit/activation"
	"github.com/katalvlaran/algokit/algo"
	"github.com/katalvlaran/algokit/matrix"
)

// ExampleReLUForward clips negative activations to zero.
func ExampleReLUForward() {
	env := algo.MustEnvironment(algo.WithoutEnvVars())
	x, _ := matrix.NewDenseRows([][]float64{{-1, 0.5}, {2, -3}})

	relu, err := activation.NewReLUForward(env)
	if err != nil {
		fmt.Println(err)
		return
	}
	defer relu.Close()
	relu.Input().Data = x
	if err = relu.Compute(); err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(relu.Result().Value.Values())
	// Output: [0 0.5 2 0]
}
