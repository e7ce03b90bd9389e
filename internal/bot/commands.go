package bot

import (
	"fmt"
	"regexp"
)

type command struct {
	pattern *regexp.Regexp
	handler CommandFunc
}

// compileCommand compiles pattern for case-insensitive substring search.
func compileCommand(pattern string, h CommandFunc) (command, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return command{}, fmt.Errorf("compile command pattern %q: %w", pattern, err)
	}
	return command{pattern: re, handler: h}, nil
}

// match searches text and returns the groups of the leftmost match.
func (c command) match(text string) (Match, bool) {
	groups := c.pattern.FindStringSubmatch(text)
	if groups == nil {
		return Match{}, false
	}

	m := Match{Input: text, Groups: groups}
	for i, name := range c.pattern.SubexpNames() {
		if name == "" {
			continue
		}
		if m.Named == nil {
			m.Named = make(map[string]string)
		}
		m.Named[name] = groups[i]
	}
	return m, true
}

// resolveCommand returns the first command whose pattern occurs in text.
func resolveCommand(commands []command, text string) (CommandFunc, Match, bool) {
	for _, c := range commands {
		if m, ok := c.match(text); ok {
			return c.handler, m, true
		}
	}
	return nil, Match{}, false
}
