// FilePath: internal/console/console.go
package console

import (
	"fmt"

	tm "github.com/buger/goterm"
	nuts "github.com/vaudience/go-nuts"
)

// ClearConsole clears the console screen.
func ClearConsole() {
	tm.Clear()
	tm.MoveCursor(1, 1)
	tm.Flush()
}

// DrawLogo prints the banner followed by the role of this process.
func DrawLogo(role string) {
	fmt.Println()
	lines := []string{
		"   _____                      __  __  __                   ",
		"  / ___/____ ___  ____ ______/ /_/ / / /___  ____ ___  ___ ",
		"  \\__ \\/ __ `__ \\/ __ `/ ___/ __/ /_/ / __ \\/ __ `__ \\/ _ \\",
		" ___/ / / / / / / /_/ / /  / /_/ __  / /_/ / / / / / /  __/",
		"/____/_/ /_/ /_/\\__,_/_/   \\__/_/ /_/\\____/_/ /_/ /_/\\___/ ",
		"............................................  " + role + " " + nuts.GetVersion(),
	}

	for _, line := range lines {
		fmt.Println(line)
	}
}
