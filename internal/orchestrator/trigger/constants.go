package trigger

import "time"

// DefaultPollInterval is how often Poller queries the foreground app.
const DefaultPollInterval = time.Second
