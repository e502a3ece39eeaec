// Package alarmxml reads the XML alarm configuration and exception documents.
//
// The configuration nests <alarmList>, <alarmSet> and <alarm> elements; each
// level carries an optional enabled attribute. The exception document lists
// <alarm name algorithm> elements with <exception> children.
package alarmxml
