package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// TestHCLFeatures_Functions validates the functions available to
// buildfile expressions.
func TestHCLFeatures_Functions(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{
			"src/a.c": "",
			"src/b.c": "",
			"Buildfile.hcl": `
				environment {
				  project = "demo-app"
				}
				target "generated" {
				  provides "generated" {
				    action "write" {
				      path    = "config.h"
				      content = format("#define %s 1", macro(environment.project))
				    }
				    action "write" {
				      path    = "sources.txt"
				      content = join(" ", glob("src/*.c"))
				    }
				  }
				}
			`,
		},
	})

	require.NoError(t, result.err)
	assert.Equal(t, "#define DEMO_APP 1", result.ws.ReadFile("config.h"))
	assert.Equal(t, "src/a.c src/b.c", result.ws.ReadFile("sources.txt"))
}

// TestHCLFeatures_ParameterDefaults validates that omitted parameters take
// their declared defaults and explicit ones win.
func TestHCLFeatures_ParameterDefaults(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": `
			rule "banner" {
			  output "path" {}
			  parameter "text" { default = "default banner" }
			  action "write" {
			    path    = parameters.path
			    content = upper(parameters.text)
			  }
			}
			target "banners" {
			  provides "banners" {
			    invoke "banner" { path = "one.txt" }
			    invoke "banner" {
			      path = "two.txt"
			      text = "custom"
			    }
			  }
			}
		`},
	})

	require.NoError(t, result.err)
	assert.Equal(t, "DEFAULT BANNER", result.ws.ReadFile("one.txt"))
	assert.Equal(t, "CUSTOM", result.ws.ReadFile("two.txt"))
}

// TestHCLFeatures_AliasesAndPrivateDependencies validates which values a
// dependency exposes to its dependents.
func TestHCLFeatures_AliasesAndPrivateDependencies(t *testing.T) {
	result := runIntegrationTest(t, scenario{
		files: map[string]string{"Buildfile.hcl": `
			target "toolchain" {
			  provides "toolchain" {
			    environment {
			      cc = "clang"
			    }
			  }
			}
			target "secrets" {
			  provides "secrets" {
			    environment {
			      token = "s3cret"
			    }
			  }
			}
			target "lib" {
			  depends "toolchain" {}
			  depends "secrets" { private = true }
			  provides "lib" {
			    environment {
			      lib_cc = "${environment.cc} -fPIC"
			    }
			  }
			}
			target "sdk" {
			  provides "sdk" { alias = ["lib"] }
			}
		`},
		args: []string{"environment", "sdk"},
	})

	require.NoError(t, result.err)
	var values map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(result.out), &values))
	assert.Equal(t, "clang", values["cc"])
	assert.Equal(t, "clang -fPIC", values["lib_cc"])
	assert.NotContains(t, values, "token", "private dependencies do not propagate")
}
