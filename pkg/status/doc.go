/*
Package status tracks what a transfer run did to each item.

	+-----------+   Track    +-----------+   Track    +-----------+
	|  workers  | ---------> |  Manager  | ---------> |   Sink    |
	+-----------+            +-----+-----+            | (console) |
	                               |                  +-----------+
	                               v
	                          +---------+
	                          | Summary |
	                          +---------+

🎯 Purpose:
- Give every processed item one outcome (copied, created, linked, unchanged,
  skipped, removed, failed)
- Collect outcomes from concurrent workers safely
- Produce the closing summary of a run

⚡ Key Responsibilities:
- Status vocabulary
- Thread safe entry recording
- Per status counts

🔍 Example:

	mgr := status.New(console)
	engine, _ := transfer.New(transfer.Options{Factory: f, Reporter: mgr})
	err := engine.Transfer(ctx, specs)
	summary := mgr.Summary()
*/
package status
