package rod_test

import (
	"fmt"

	"github.com/mrjoshuak/go-rodhypix/rod"
)

func ExampleUnderstand() {
	head := make([]byte, rod.AsciiHeaderSize)
	for i := range head {
		head[i] = ' '
	}
	copy(head, "OD SAPPHIRE 2.3\nCOMPRESSION=TY6\n")

	fmt.Println(rod.Understand(head))
	fmt.Println(rod.Understand([]byte("not a detector image")))
	// Output:
	// true
	// false
}
