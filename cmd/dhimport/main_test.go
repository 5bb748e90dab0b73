package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/needle-digital/dh-importer/api"
)

func TestDatasetKindParsing(t *testing.T) {
	kind, err := datasetKind("holes")
	require.NoError(t, err)
	require.Equal(t, api.KindHoles, kind)

	kind, err = datasetKind("Assays")
	require.NoError(t, err)
	require.Equal(t, api.KindAssays, kind)

	_, err = datasetKind("geochem")
	require.Error(t, err)
}

func TestFilterParams(t *testing.T) {
	f := filterFlags{state: "WA", company: "Goldfields Ltd"}
	require.Equal(t, map[string]string{
		"state":        "WA",
		"company_name": "Goldfields Ltd",
		"hole_type":    "",
	}, f.params())
}

func TestKeyedURL(t *testing.T) {
	require.Equal(t, "https://id.example.com/signin", keyedURL("https://id.example.com/signin", ""))
	require.Equal(t, "https://id.example.com/signin?key=abc%2F123", keyedURL("https://id.example.com/signin", "abc/123"))
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())
	require.Contains(t, out.String(), "dhimport")
}
