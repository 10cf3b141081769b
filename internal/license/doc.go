// Package license talks to the remote Software License Manager (SLM) server
// and keeps the local license record that gates every optimization.
//
// # Components
//
//	- Client: activate, check and deactivate calls against the SLM endpoint
//	- Repository: the persisted record (license_key, license_status, license_last_check)
//	- Cache: runs at most one check per TTL window
//	- Scheduler: cron job that drives the cache daily
//	- Gate: refuses optimization unless the stored status is success
//
// # Classification
//
// Activate classifies the server reply; the first matching rule wins:
//
//	1. transport failure or timeout           -> invalid
//	2. result "error" + "maximum allowable domains" -> limit_reached
//	3. result "success"                       -> success
//	4. message mentions "expired"             -> expired
//	5. anything else, including bad JSON      -> invalid
//
// Check adopts the server's result string as the status without applying
// these rules. Callers that compare statuses must tolerate values outside
// the named set.
//
// No call is retried. A timed out request costs the caller the full timeout.
package license
