// Package period resolves a (kind, selected date, today) triple into a
// calendar window and its inclusion test.
//
//   - daily: exactly the selected day
//   - weekly: Monday through Sunday of the week containing the selected day
//   - monthly: first through last day of today's month
//
// Every date is normalised with Day before comparison so intraday timestamps
// and time zones never shift a record into a neighbouring day.
package period
