package redisstore

import "github.com/redis/go-redis/v9"

const (
	replyOK        = "ok"
	replyMissing   = "missing"
	replyDupEmail  = "dup_email"
	replyDupCPF    = "dup_cpf"
	replyDupUserID = "dup_id"
)

// KEYS: user hash, email index, cpf index, users zset.
// ARGV: id, createdAt (ms), cpf ("" when absent), field/value pairs...
const createUserScript = `
if redis.call("EXISTS", KEYS[2]) == 1 then
  return "dup_email"
end
local cpf = ARGV[3]
if cpf ~= "" and redis.call("EXISTS", KEYS[3]) == 1 then
  return "dup_cpf"
end
if redis.call("EXISTS", KEYS[1]) == 1 then
  return "dup_id"
end
redis.call("HSET", KEYS[1], unpack(ARGV, 4))
redis.call("SET", KEYS[2], ARGV[1])
if cpf ~= "" then
  redis.call("SET", KEYS[3], ARGV[1])
end
redis.call("ZADD", KEYS[4], ARGV[2], ARGV[1])
return "ok"
`

var createUserLua = redis.NewScript(createUserScript)

// KEYS: user hash. ARGV: field/value pairs.
// Returns {"ok", field, value, ...} or {"missing"}.
const updateUserScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {"missing"}
end
redis.call("HSET", KEYS[1], unpack(ARGV))
local h = redis.call("HGETALL", KEYS[1])
table.insert(h, 1, "ok")
return h
`

var updateUserLua = redis.NewScript(updateUserScript)

// KEYS: user hash.
// ARGV: id, cpf key prefix, new cpf, field/value pairs...
// Moves the cpf index entry when the cpf changes and refuses a cpf owned by
// another account.
const updateProfileScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return {"missing"}
end
local id = ARGV[1]
local prefix = ARGV[2]
local next_cpf = ARGV[3]
local prev_cpf = redis.call("HGET", KEYS[1], "cpf") or ""
if next_cpf ~= "" and next_cpf ~= prev_cpf then
  local owner = redis.call("GET", prefix .. next_cpf)
  if owner and owner ~= id then
    return {"dup_cpf"}
  end
end
redis.call("HSET", KEYS[1], "cpf", next_cpf, unpack(ARGV, 4))
if prev_cpf ~= "" and prev_cpf ~= next_cpf then
  redis.call("DEL", prefix .. prev_cpf)
end
if next_cpf ~= "" then
  redis.call("SET", prefix .. next_cpf, id)
end
local h = redis.call("HGETALL", KEYS[1])
table.insert(h, 1, "ok")
return h
`

var updateProfileLua = redis.NewScript(updateProfileScript)
