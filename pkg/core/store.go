package core

import "context"

// MaxTransactItems is the hard ceiling the backing store places on a single
// atomic write set. Exceeding it must surface as KindTooManyItems before any
// data is touched.
const MaxTransactItems = 25

// TxOp is one entry of an atomic write set: exactly one of Put or Delete.
type TxOp struct {
	Put    *Document
	Delete string // path to remove
}

// Store is the port to the flat document backend. Adhering to this interface
// keeps the data client independent of the storage mechanism (in-memory,
// files on disk, a hosted key-value service).
//
// Implementations must be safe for concurrent use and must report transient
// transport failures as KindUnavailable so the client can retry them.
type Store interface {
	// Get retrieves the document stored at (workspace, path).
	// An absent document yields (nil, nil), not an error.
	Get(ctx context.Context, workspace, path string) (*Document, error)

	// Put stores a document. When a document already exists at the same
	// location its CreatedAt/CreatedBy metadata is preserved.
	Put(ctx context.Context, doc Document) error

	// Delete removes a document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, workspace, path string) error

	// QueryByPrefix returns every document in the workspace whose path
	// matches the prefix at a segment boundary ("/ab" never matches "/a").
	QueryByPrefix(ctx context.Context, workspace, prefix string) ([]Document, error)

	// TransactWrite applies up to MaxTransactItems operations atomically:
	// either all of them commit or the store is left exactly as before.
	TransactWrite(ctx context.Context, workspace string, ops []TxOp) error
}

// Watchable is implemented by stores that can observe external mutations and
// report them as events (e.g. the filestore adapter via fsnotify).
type Watchable interface {
	Watch(ctx context.Context) (<-chan Event, error)
}
