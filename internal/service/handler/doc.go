// Package handler implements the alarm-handler command: it loads the alarm
// configuration, the exception list and a histogram file, evaluates every
// alarm and writes the results snapshot, the XML summary, the text and HTML
// reports and the trend database.
//
// With a schedule the evaluation repeats on every cron tick until the
// context is canceled. The trend subcommand reads the trend database back.
package handler
