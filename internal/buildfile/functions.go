package buildfile

import (
	"os"
	"path/filepath"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/specialistvlad/buildgrid/internal/files"
	"github.com/specialistvlad/buildgrid/internal/name"
)

// functions returns the functions available to expressions of a buildfile
// in dir. Relative paths given to glob are resolved against dir.
func functions(dir string) map[string]function.Function {
	return map[string]function.Function{
		"upper":         stdlib.UpperFunc,
		"lower":         stdlib.LowerFunc,
		"join":          stdlib.JoinFunc,
		"split":         stdlib.SplitFunc,
		"format":        stdlib.FormatFunc,
		"concat":        stdlib.ConcatFunc,
		"length":        stdlib.LengthFunc,
		"replace":       stdlib.ReplaceFunc,
		"regex_replace": stdlib.RegexReplaceFunc,
		"trimspace":     stdlib.TrimSpaceFunc,
		"coalesce":      stdlib.CoalesceFunc,
		"contains":      stdlib.ContainsFunc,
		"basename":      stringFunc(filepath.Base),
		"dirname":       stringFunc(filepath.Dir),
		"extension":     stringFunc(filepath.Ext),
		"macro":         stringFunc(func(s string) string { return name.New(s).Macro() }),
		"identifier":    stringFunc(func(s string) string { return name.New(s).Identifier() }),
		"glob":          globFunc(dir),
		"getenv":        getenvFunc,
	}
}

func stringFunc(fn func(string) string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "str", Type: cty.String}},
		Type:   function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			return cty.StringVal(fn(args[0].AsString())), nil
		},
	})
}

func globFunc(dir string) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{{Name: "pattern", Type: cty.String}},
		Type:   function.StaticReturnType(cty.List(cty.String)),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			pattern := args[0].AsString()
			root := dir
			if filepath.IsAbs(pattern) {
				root = "/"
				pattern = pattern[1:]
			}
			matches, err := files.Glob(root, pattern)
			if err != nil {
				return cty.NilVal, err
			}
			return ToCty(matches.Paths())
		},
	})
}

// getenvFunc reads a variable of the process environment. The optional
// second argument is returned when the variable is unset.
var getenvFunc = function.New(&function.Spec{
	Params:   []function.Parameter{{Name: "name", Type: cty.String}},
	VarParam: &function.Parameter{Name: "default", Type: cty.String},
	Type:     function.StaticReturnType(cty.String),
	Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
		if v, ok := os.LookupEnv(args[0].AsString()); ok {
			return cty.StringVal(v), nil
		}
		if len(args) > 1 {
			return args[1], nil
		}
		return cty.StringVal(""), nil
	},
})
