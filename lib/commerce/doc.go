// Package commerce implements the retail workflows of the document store: carts and
// checkout, discount codes, loyalty cards and inventory lookups.
//
// The Service works against any store.IStore (local, raft-replicated or remote over RPC).
// Every change to a single cart or loyalty card is one store.Apply call carrying an
// aggregate.Mutation, so totals always match lines and balances always match ledgers, no
// matter how many callers work on the same document. Workflows spanning several
// documents are sequences of such calls:
//
//   - Checkout creates the sales order first and then marks the cart Completed.
//   - TransferPoints debits the source card, credits the target and reverts the debit
//     if the credit fails.
//
// Missing carts, cards and stores are reported with the sentinel errors of this package
// (ErrCartNotFound, ErrCardNotFound, ...), which callers test with errors.Is.
//
// The embedded seed.yaml holds a small demo data set (customers, products, stores with
// inventory, a cart, a sales order, a loyalty card, ...). LoadSeed writes it into a store.
package commerce
