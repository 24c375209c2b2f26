package main

import (
	"fmt"

	"github.com/iamtutumo/agentkb"
)

// Run executes the sessions command.
func (c *SessionsCmd) Run(deps *Dependencies) error {
	sessions, err := deps.Ledger.ListSessions(deps.Ctx)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", agentkb.ErrorMessage(err))
		return err
	}

	if len(sessions) == 0 {
		fmt.Fprintln(deps.Stdout, "No sessions found. Use 'kbagent crawl' or 'kbagent upload' to create one.")
		return nil
	}

	for _, s := range sessions {
		source := s.RootURL
		if source == "" {
			source = "(uploads)"
		}
		fmt.Fprintf(deps.Stdout, "%s  %s\n", s.ID, source)
	}

	return nil
}
