package observable

import "errors"

// ErrTxCommitted is the panic value raised when a write is attempted through a
// transaction that has already been committed.
var ErrTxCommitted = errors.New("observable: transaction already committed")

// ErrRerunLimit is logged when an autorun keeps invalidating itself while it
// runs and is abandoned after maxReruns consecutive runs.
var ErrRerunLimit = errors.New("observable: autorun exceeded rerun limit")
