// Package adapters hides the differences between pgx pools and sqlx handles
// behind one small interface so the postgres key-value store can run on either.
package adapters
