// Package buildfile loads build definitions written in HCL.
//
// A buildfile declares a root environment, rules, targets and chains:
//
//	environment {
//	  cflags = ["-O2"]
//	}
//
//	rule "copy.file" {
//	  input "source" {}
//	  output "destination" { implicit = "${parameters.source}.bak" }
//	  action "copy" {
//	    source      = parameters.source
//	    destination = parameters.destination
//	  }
//	}
//
//	target "hello" {
//	  depends "toolchain" {}
//	  provides "hello" {
//	    environment { greeting = "hi ${environment.user}" }
//	    invoke "copy" { source = "in.txt" }
//	  }
//	}
//
//	chain "default" { dependencies = ["hello"] }
//
// Expressions are evaluated when the build runs, not when the file is
// loaded. They see two variables: parameters, the arguments of the rule
// being applied, and environment, the values of the acting task's
// environment. Provision environment attributes that reference environment
// become lazy values, so they resolve against whatever the dependent's
// combined environment holds.
package buildfile
