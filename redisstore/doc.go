// Package redisstore persists caseguard accounts, the audit trail and the
// activity log in Redis.
//
// Accounts are hashes keyed by id with string indexes for email and cpf and a
// sorted set ordering them by creation time. Creation, guarded updates and the
// failed-login transition run as Lua scripts so uniqueness and lockout hold under
// concurrent writers.
package redisstore
