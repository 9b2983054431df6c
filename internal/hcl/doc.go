// Package hcl provides the HCL implementation of config.Loader. A
// declaration is a list of `field` blocks:
//
//	field "gender" {
//	  type = "gender"
//	}
//
//	field "name" {
//	  type    = "first_name"
//	  context = { gender = "gender" }
//	}
//
//	field "address" {
//	  field "city" {
//	    constant = "Springfield"
//	  }
//	}
//
// Nested field blocks play the role of the `fields` key of other formats.
// Attribute values are evaluated without variables or functions and
// converted from cty to plain Go values.
package hcl
