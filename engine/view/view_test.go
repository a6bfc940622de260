package view

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/common"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/camera"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/mlange-42/arche/ecs"
)

func TestViewDefaults(t *testing.T) {
	v := NewView(resource.Handle{Kind: resource.KindView, ID: 1})
	if !v.PostProcessing() {
		t.Fatalf("NewView failed:\npost-processing should default to enabled")
	}
	if v.Renderable() {
		t.Fatalf("NewView failed:\nempty view reports renderable")
	}
}

func TestViewOptions(t *testing.T) {
	cam := camera.NewCamera(resource.Handle{Kind: resource.KindCamera, ID: 1}, ecs.Entity{})
	vp := common.Viewport{Width: 800, Height: 600}
	v := NewView(resource.Handle{Kind: resource.KindView, ID: 1},
		WithName("main"),
		WithCamera(cam),
		WithViewport(vp),
		WithPostProcessing(false),
	)
	if v.Name() != "main" || v.Camera() != cam || v.Viewport() != vp || v.PostProcessing() {
		t.Fatalf("NewView failed:\nname %q viewport %+v post %v", v.Name(), v.Viewport(), v.PostProcessing())
	}
	if v.Renderable() {
		t.Fatalf("Renderable:\nview without a scene reports renderable")
	}

	v.SetViewport(common.Viewport{})
	if !v.Viewport().Empty() {
		t.Fatalf("SetViewport failed")
	}
}
