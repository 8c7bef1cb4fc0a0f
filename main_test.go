package main

import (
	"testing"
)

func TestNewApp(t *testing.T) {
	app := newApp()

	expected := []string{"render", "scenes", "inspect", "serve"}
	if len(app.Commands) != len(expected) {
		t.Fatalf("Expected %d commands, got %d", len(expected), len(app.Commands))
	}
	for i, name := range expected {
		if app.Commands[i].Name != name {
			t.Errorf("Expected command %d to be %s, got %s", i, name, app.Commands[i].Name)
		}
		if app.Commands[i].Action == nil {
			t.Errorf("Expected command %s to have an action", name)
		}
	}
}

func TestNewApp_UnknownPreset(t *testing.T) {
	app := newApp()
	err := app.Run([]string{"pathtracer", "inspect", "no-such-scene"})
	if err == nil {
		t.Fatal("Expected an error for an unknown preset")
	}
}
