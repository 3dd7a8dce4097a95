package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/veilchat/veilchat/internal/client/disguise"
	"github.com/veilchat/veilchat/internal/client/models"
)

// nowFn is a test seam for the disguise input clock.
var nowFn = time.Now

// Duress swaps the terminal for a disguise screen and feeds every line the
// user types to the exit detector. An empty line counts as a tap. When the
// exit gesture completes the user is asked to confirm; declining keeps the
// disguise up with the gesture state discarded. The loop also ends when the
// duress hard timeout destroys the session underneath it.
func (a *App) Duress(ctx context.Context, scanner *bufio.Scanner) error {
	selected := a.core.Duress.Enter(ctx)
	printDisguiseBanner(selected)

	for {
		fmt.Print(disguisePrompt(selected))
		if !scanner.Scan() {
			return nil
		}
		line := strings.TrimSpace(scanner.Text())

		if a.core.Duress.Observe(disguise.Input{Text: line, At: nowFn()}) {
			fmt.Print("Leave this screen? [y/N] ")
			if !scanner.Scan() {
				return nil
			}
			answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
			if answer == "y" || answer == "yes" {
				a.core.Duress.ConfirmExit(ctx)
				fmt.Println("Welcome back.")
				return nil
			}
			a.core.Duress.DeclineExit()
		} else {
			printDisguiseResponse(selected, line)
		}

		if !a.core.Duress.Active() {
			// The hard timeout fired; the session is gone.
			return nil
		}
	}
}

func printDisguiseBanner(d models.Disguise) {
	switch d {
	case models.DisguiseCalculator:
		fmt.Println("Calculator")
	case models.DisguiseWeather:
		fmt.Println("Weather (press Enter to refresh)")
	default:
		fmt.Println("Notes")
	}
}

func disguisePrompt(d models.Disguise) string {
	switch d {
	case models.DisguiseCalculator:
		return "calc> "
	case models.DisguiseWeather:
		return ""
	default:
		return "note> "
	}
}

func printDisguiseResponse(d models.Disguise, line string) {
	switch d {
	case models.DisguiseCalculator:
		if strings.HasSuffix(line, "=") {
			fmt.Println("Error")
		}
	case models.DisguiseWeather:
		fmt.Println("Partly cloudy, 18°C")
	default:
		if line != "" {
			fmt.Println("Saved.")
		}
	}
}
