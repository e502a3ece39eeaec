// Package evaluation binds alarm definitions to histograms and runs them.
//
// A Handler walks the enabled alarm sets in declaration order. Each set
// matches its name against the histogram catalog, and each matched
// histogram gets one Alarm per definition. Alarm.Evaluate never fails:
// misconfiguration, unsupported types, computation errors and panics all
// become UNDEFINED results carrying a diagnostic.
package evaluation
