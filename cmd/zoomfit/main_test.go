package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestRun(t *testing.T) {
	tests := []struct {
		name    string
		args    fitArgs
		want    []string
		wantErr string
	}{
		{
			name: "container",
			args: fitArgs{elem: "1024x512", container: "512x512", origin: "0,0", position: "0,0"},
			want: []string{"container: scale(0.5) translate(0px, 102.4px)"},
		},
		{
			name: "viewport",
			args: fitArgs{elem: "512x512", viewport: "1024x1024", position: "100,50", origin: "0,0"},
			want: []string{"viewport: scale(2) translate(-100px, -50px)"},
		},
		{name: "missing target", args: fitArgs{elem: "10x10", origin: "0,0"}, wantErr: "required"},
		{name: "bad size", args: fitArgs{elem: "10", container: "5x5", origin: "0,0"}, wantErr: "--elem"},
		{name: "negative size", args: fitArgs{elem: "-1x4", container: "5x5", origin: "0,0"}, wantErr: "positive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := run(&out, tt.args)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("run() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("run() error = %v", err)
			}
			for _, want := range tt.want {
				if !strings.Contains(out.String(), want) {
					t.Fatalf("output %q missing %q", out.String(), want)
				}
			}
		})
	}
}

func TestCommandRequiresElem(t *testing.T) {
	cmd := newCmd()
	cmd.SetArgs([]string{"--container", "10x10"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() should fail without --elem")
	}
}
