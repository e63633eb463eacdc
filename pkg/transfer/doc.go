/*
Package transfer replicates source trees onto a destination file system.

	+-----------+     +---------------+     +-----------------+
	| discovery | --> |  directories  | --> |  worker pool    |
	| (source)  |     |  and links    |     |  (files, N<=10) |
	+-----------+     | (destination) |     +--------+--------+
	                  +---------------+              |
	                                                 v
	                                        +-----------------+
	                                        | join + combine  |
	                                        | State, *Error   |
	                                        +-----------------+

🎯 Purpose:
- Turn an ordered list of resource specifications into a destination tree
- Keep every protocol session private to one goroutine
- Report one outcome per run, with every cause attached

🔄 Flow:
1. Discover the specifications on a source session, then release it
2. Create every directory (parents first) and every kept link on one
   session pair
3. Start min(MaxPar, files) workers, each with its own session pair
4. Workers pull files from a shared queue until it drains or the context ends
5. Join the workers, retrying the wait after cancellation before giving up
6. Combine worker results: Critical > Failed > Interrupted > Succeed

⚡ Key Responsibilities:
- Per item state machine (skip, link, remove stale, template, upload)
- Conflict policy through the reconcile package
- Fault isolation: a failed item never stops its siblings
- Cooperative cancellation at item boundaries

🔍 Example:

	engine, err := transfer.New(transfer.Options{
		Factory: &backend.Factory{Source: src, Destination: dst, Templater: renderer},
		MaxPar:  4,
	})
	if err != nil {
		return err
	}
	if err := engine.Transfer(ctx, specs); err != nil {
		var terr *transfer.Error
		if errors.As(err, &terr) {
			for _, cause := range terr.Causes() {
				fmt.Println(cause)
			}
		}
	}
*/
package transfer
