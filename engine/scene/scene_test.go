package scene

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-sandbox/engine/light"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/renderable"
	"github.com/Carmen-Shannon/oxy-sandbox/engine/resource"
	"github.com/mlange-42/arche/ecs"
)

type lookup struct {
	lights map[ecs.Entity]light.Light
}

func (l lookup) Renderable(e ecs.Entity) (renderable.Renderable, bool) { return nil, false }

func (l lookup) Light(e ecs.Entity) (light.Light, bool) {
	lt, ok := l.lights[e]
	return lt, ok
}

func TestSceneEntities(t *testing.T) {
	w := ecs.NewWorld()
	a, b, c := w.NewEntity(), w.NewEntity(), w.NewEntity()

	s := NewScene(resource.Handle{Kind: resource.KindScene, ID: 1}, lookup{}, WithEntities(a, b))
	s.Add(c)
	s.Add(a)
	if s.Len() != 3 {
		t.Fatalf("Add failed:\nhave %d entities, want 3", s.Len())
	}

	s.Remove(b)
	got := s.Entities()
	if len(got) != 2 || got[0] != a || got[1] != c {
		t.Fatalf("Remove failed:\nhave %v", got)
	}
	if s.Has(b) || !s.Has(c) {
		t.Fatalf("Has failed")
	}
	s.Remove(b)
	s.Remove(a)
	if got := s.Entities(); len(got) != 1 || got[0] != c {
		t.Fatalf("Remove failed:\nhave %v", got)
	}
}

func TestSceneResolvesComponents(t *testing.T) {
	w := ecs.NewWorld()
	sunEntity, other := w.NewEntity(), w.NewEntity()
	sun := light.NewLight(resource.Handle{Kind: resource.KindLight, ID: 1}, sunEntity, light.LightTypeSun)

	comps := lookup{lights: map[ecs.Entity]light.Light{sunEntity: sun}}
	s := NewScene(resource.Handle{Kind: resource.KindScene, ID: 1}, comps, WithEntities(other, sunEntity))

	lights := s.Lights()
	if len(lights) != 1 || lights[0] != sun {
		t.Fatalf("Lights failed:\nhave %v", lights)
	}
	if r := s.Renderables(); len(r) != 0 {
		t.Fatalf("Renderables failed:\nhave %v", r)
	}

	delete(comps.lights, sunEntity)
	if lights := s.Lights(); len(lights) != 0 {
		t.Fatalf("Lights failed:\nremoved component still resolved")
	}
}

func TestSceneLighting(t *testing.T) {
	s := NewScene(resource.Handle{Kind: resource.KindScene, ID: 1}, lookup{})
	if s.Skybox() != nil || s.IndirectLight() != nil {
		t.Fatalf("NewScene failed:\nwant no skybox and no indirect light")
	}
	sb, err := light.NewSkybox(resource.Handle{Kind: resource.KindSkybox, ID: 1})
	if err != nil {
		t.Fatalf("NewSkybox failed:\n%v", err)
	}
	s.SetSkybox(sb)
	if s.Skybox() != sb {
		t.Fatalf("SetSkybox failed")
	}
}

func TestNewSceneNilComponentsPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("NewScene:\nwant panic on nil Components")
		}
	}()
	NewScene(resource.Handle{}, nil)
}
