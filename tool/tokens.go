package tool

import "regexp"

// tokenPattern matches ${name} placeholders in descriptor string fields.
var tokenPattern = regexp.MustCompile(`\$\{([A-Za-z][A-Za-z0-9]*)\}`)

// Expand resolves placeholder tokens in s against the workspace context.
// Unknown tokens are left untouched.
func (w Workspace) Expand(s string) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		switch name {
		case "workspaceRoot", "workspaceFolder":
			return w.EffectiveRoot()
		case "extensionRoot":
			return w.InstallRoot
		case "node":
			return w.Interpreter
		default:
			return match
		}
	})
}

// expand returns a copy of the descriptor with token substitution applied to
// command, args, cwd and environment values. Substitution happens here, at
// resolution time, so the recorded run reflects what was actually asked for.
func (d Descriptor) expand(w Workspace) Descriptor {
	out := d
	out.Command = w.Expand(d.Command)
	if len(d.Args) > 0 {
		out.Args = make([]string, len(d.Args))
		for i, a := range d.Args {
			out.Args[i] = w.Expand(a)
		}
	}
	out.Cwd = w.Expand(d.Cwd)
	if len(d.Env) > 0 {
		out.Env = make(map[string]string, len(d.Env))
		for k, v := range d.Env {
			out.Env[k] = w.Expand(v)
		}
	}
	return out
}
