// Package logs reads the gazefix log file for the "gazefix logs" command.
//
// Last returns the trailing lines of the file with bounded memory, Follow
// polls for appended lines until its context ends, and Filter narrows output
// to one run or participant for both the console and JSON log formats.
package logs
