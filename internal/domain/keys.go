package domain

// KeyPrefix namespaces every key incidex writes to Redis/Valkey.
const KeyPrefix = "incidex:"
