package main

// Run executes the run command: crawl, extract, and synthesize in sequence
// against a fresh session.
func (c *RunCmd) Run(deps *Dependencies) error {
	session, err := runCrawl(deps, c.URL, c.Depth, c.PageCap, c.Concurrency, c.RPS)
	if err != nil {
		return err
	}

	if err := runExtract(deps, session.ID, c.Concurrency); err != nil {
		return err
	}

	return runSynthesize(deps, session.ID)
}
