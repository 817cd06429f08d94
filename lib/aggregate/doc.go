// Package aggregate keeps derived document fields consistent with their sources.
//
// It knows three document shapes:
//
//   - Carts: "lines" holds line documents {id, product_id, quantity, unit_price, line_total,
//     discount_amount}. "subtotal", "tax_amount" and "total" are recomputed after every line
//     change. Applied discount codes live in "discount_codes" and their sum in "discount_amount".
//   - Store locations: "inventory" maps a product id to the on-hand quantity.
//   - Loyalty cards: "transactions" is the points ledger and "points_balance" its cached sum.
//
// All money arithmetic is done on decimals and rounded half away from zero to cents, so
// 0.08 * 50 is exactly 4.00.
//
// The package functions mutate the document they are given and never touch a store.
// Stores apply them through Mutation, which is serializable so it can travel over RPC and
// through a raft log:
//
//	cart, found, err := s.Apply("carts", "CART001", aggregate.AddLines(aggregate.CartLine{
//		ProductID: "PROD001", Quantity: 2, UnitPrice: 199.99,
//	}))
package aggregate
