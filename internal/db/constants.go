package db

// timeLayout is how timestamps are stored; SQLite's date functions understand it.
const timeLayout = "2006-01-02 15:04:05"

// schemaVersion is bumped whenever migrate gains a step.
const schemaVersion = 1
