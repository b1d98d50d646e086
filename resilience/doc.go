// Package resilience retries operations against infrastructure that may not
// be reachable yet, such as the database during startup.
//
//	db, err := resilience.Retry(ctx, resilience.RetryConfig{
//	    MaxAttempts:    5,
//	    InitialBackoff: time.Second,
//	}, func() (*gorm.DB, error) {
//	    return gorm.Open(dialector, cfg)
//	})
package resilience
