package fit

import (
	"math"
	"testing"

	"canvaszoom/internal/transform"
)

const tolerance = 1e-9

func TestToContainerWideElement(t *testing.T) {
	got := ToContainer(Size{Width: 1600, Height: 600}, Size{Width: 800, Height: 600}, Point{})
	if got.Scale != 0.5 {
		t.Fatalf("Scale = %v, want 0.5", got.Scale)
	}
	if math.Abs(got.OffsetX) > tolerance {
		t.Fatalf("OffsetX = %v, want 0", got.OffsetX)
	}
	// (600 - 300) / 2.5
	if math.Abs(got.OffsetY-120) > tolerance {
		t.Fatalf("OffsetY = %v, want 120", got.OffsetY)
	}
}

func TestToContainerScaleBounds(t *testing.T) {
	tests := []struct {
		name      string
		elem      Size
		container Size
	}{
		{name: "wider", elem: Size{Width: 2000, Height: 500}, container: Size{Width: 800, Height: 600}},
		{name: "taller", elem: Size{Width: 400, Height: 3000}, container: Size{Width: 800, Height: 600}},
		{name: "both", elem: Size{Width: 1024, Height: 1024}, container: Size{Width: 512, Height: 700}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToContainer(tt.elem, tt.container, Point{})
			if got.Scale <= 0 || got.Scale > 1 {
				t.Fatalf("Scale = %v, want (0, 1]", got.Scale)
			}
			left := got.OffsetX
			right := tt.container.Width - (got.OffsetX + tt.elem.Width*got.Scale)
			if math.Abs(left-right) > 1e-6 {
				t.Fatalf("horizontal margins not symmetric: left=%v right=%v", left, right)
			}
		})
	}
}

func TestToContainerOriginCorrection(t *testing.T) {
	elem := Size{Width: 1000, Height: 1000}
	container := Size{Width: 500, Height: 500}
	plain := ToContainer(elem, container, Point{})
	shifted := ToContainer(elem, container, Point{X: 100, Y: 40})
	if math.Abs((plain.OffsetX-shifted.OffsetX)-100*0.5) > tolerance {
		t.Fatalf("origin x correction wrong: %v vs %v", plain.OffsetX, shifted.OffsetX)
	}
	if math.Abs((plain.OffsetY-shifted.OffsetY)-40*0.5) > tolerance {
		t.Fatalf("origin y correction wrong: %v vs %v", plain.OffsetY, shifted.OffsetY)
	}
}

func TestToViewportSubtractsPosition(t *testing.T) {
	got := ToViewport(Size{Width: 500, Height: 400}, Size{Width: 1000, Height: 800}, Point{X: 100, Y: 50}, Point{})
	if got.Scale != 2 {
		t.Fatalf("Scale = %v, want 2", got.Scale)
	}
	if got.OffsetX != -100 || got.OffsetY != -50 {
		t.Fatalf("offsets = %v,%v, want -100,-50", got.OffsetX, got.OffsetY)
	}
}

func TestScaleDegenerate(t *testing.T) {
	if got := Scale(Size{}, Size{Width: 100, Height: 100}); got != 1 {
		t.Fatalf("Scale(zero elem) = %v, want 1", got)
	}
}

func TestFitClampsScaleBeforeOffsets(t *testing.T) {
	tests := []struct {
		name   string
		elem   Size
		target Size
		want   float64
	}{
		{name: "huge element", elem: Size{Width: 12000, Height: 512}, target: Size{Width: 900, Height: 700}, want: transform.MinZoom},
		{name: "tiny element", elem: Size{Width: 10, Height: 10}, target: Size{Width: 1920, Height: 1080}, want: transform.MaxZoom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, got := range []Result{
				ToContainer(tt.elem, tt.target, Point{}),
				ToViewport(tt.elem, tt.target, Point{}, Point{}),
			} {
				if got.Scale != tt.want {
					t.Fatalf("Scale = %v, want %v", got.Scale, tt.want)
				}
				left := got.OffsetX
				right := tt.target.Width - (got.OffsetX + tt.elem.Width*got.Scale)
				if math.Abs(left-right) > 1e-6 {
					t.Fatalf("not centered at clamped scale: left=%v right=%v", left, right)
				}
			}
		})
	}
}
