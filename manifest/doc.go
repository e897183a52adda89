// Package manifest loads declarative flagpole manifests from HCL files.
//
// A manifest declares the flag space, binding metadata (trigger flag, output
// key, dependencies) and named build profiles:
//
//	space {
//	  flags = ["BASE", "LISTENERS", "RULES"]
//	}
//
//	binding "listeners" {
//	  flag = "LISTENERS"
//	  key  = "listeners"
//	}
//
//	binding "rules" {
//	  flag       = "RULES"
//	  key        = "rules"
//	  depends_on = ["LISTENERS"]
//	}
//
//	profile "everything" {
//	  build = ["ALL"]
//	  seed {
//	    Arn = "abc"
//	  }
//	}
//
// Handlers stay in Go; Apply pairs each binding block with a handler of the
// same name and registers the pair, failing when the manifest and the code
// disagree about which bindings exist.
package manifest
