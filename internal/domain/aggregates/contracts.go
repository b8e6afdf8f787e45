package aggregates

// TxIsolation names the isolation level an aggregate's writes require.
type TxIsolation string

const (
	IsolationDefault      TxIsolation = ""
	IsolationSerializable TxIsolation = "serializable"
)

// LockOrder is the order in which a write locks the rows it is about to
// mutate. Two writers that follow the same order cannot deadlock on each other.
type LockOrder string

const (
	LockOrderNone         LockOrder = ""
	LockOrderSeniority LockOrder = "created_at_then_id"
)

// Contract states the transactional guarantees an aggregate gives its callers.
// Writes always open and close their own transaction; callers never pass one.
type Contract struct {
	Name      string
	Isolation TxIsolation
	LockOrder LockOrder
	// InvariantScopedReads means the aggregate reads only what its write
	// decision needs; read models stay on repos.
	InvariantScopedReads bool
	Notes                string
}

type Aggregate interface {
	Contract() Contract
}

func (c Contract) RequiresSerializable() bool {
	return c.Isolation == IsolationSerializable
}

func (c Contract) LocksInOrder() bool {
	return c.LockOrder != LockOrderNone
}
