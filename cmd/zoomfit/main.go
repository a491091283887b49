// Command zoomfit prints the scale and offset the engine would apply when
// fitting an element to its container or to the viewport.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"canvaszoom/internal/fit"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type fitArgs struct {
	elem      string
	container string
	viewport  string
	position  string
	origin    string
}

func newCmd() *cobra.Command {
	var a fitArgs
	cmd := &cobra.Command{
		Use:           "zoomfit",
		Short:         "Print container and viewport fits for an element size",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.OutOrStdout(), a)
		},
	}
	cmd.Flags().StringVar(&a.elem, "elem", "", "element size WxH (required)")
	cmd.Flags().StringVar(&a.container, "container", "", "container size WxH")
	cmd.Flags().StringVar(&a.viewport, "viewport", "", "viewport size WxH")
	cmd.Flags().StringVar(&a.position, "position", "0,0", "element viewport position X,Y")
	cmd.Flags().StringVar(&a.origin, "origin", "0,0", "transform origin X,Y")
	_ = cmd.MarkFlagRequired("elem")
	return cmd
}

func run(w io.Writer, a fitArgs) error {
	elem, err := parseSize(a.elem)
	if err != nil {
		return fmt.Errorf("--elem: %w", err)
	}
	origin, err := parsePoint(a.origin)
	if err != nil {
		return fmt.Errorf("--origin: %w", err)
	}
	if a.container == "" && a.viewport == "" {
		return errors.New("one of --container or --viewport is required")
	}

	if a.container != "" {
		container, err := parseSize(a.container)
		if err != nil {
			return fmt.Errorf("--container: %w", err)
		}
		printResult(w, "container", fit.ToContainer(elem, container, origin))
	}
	if a.viewport != "" {
		viewport, err := parseSize(a.viewport)
		if err != nil {
			return fmt.Errorf("--viewport: %w", err)
		}
		position, err := parsePoint(a.position)
		if err != nil {
			return fmt.Errorf("--position: %w", err)
		}
		printResult(w, "viewport", fit.ToViewport(elem, viewport, position, origin))
	}
	return nil
}

func printResult(w io.Writer, name string, r fit.Result) {
	fmt.Fprintf(w, "%s: scale(%g) translate(%gpx, %gpx)\n", name, r.Scale, r.OffsetX, r.OffsetY)
}

func parseSize(v string) (fit.Size, error) {
	a, b, err := parsePair(v, "x")
	if err != nil {
		return fit.Size{}, err
	}
	if a <= 0 || b <= 0 {
		return fit.Size{}, fmt.Errorf("size %q must be positive", v)
	}
	return fit.Size{Width: a, Height: b}, nil
}

func parsePoint(v string) (fit.Point, error) {
	a, b, err := parsePair(v, ",")
	if err != nil {
		return fit.Point{}, err
	}
	return fit.Point{X: a, Y: b}, nil
}

func parsePair(v, sep string) (float64, float64, error) {
	left, right, ok := strings.Cut(strings.ToLower(strings.TrimSpace(v)), sep)
	if !ok {
		return 0, 0, fmt.Errorf("%q: expected two values separated by %q", v, sep)
	}
	a, err := strconv.ParseFloat(strings.TrimSpace(left), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", v, err)
	}
	b, err := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if err != nil {
		return 0, 0, fmt.Errorf("%q: %w", v, err)
	}
	return a, b, nil
}
