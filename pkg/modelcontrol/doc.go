// Package modelcontrol is the model control plane: it tracks models and their
// versions across pipeline runs.
//
// Steps that want a new model version attach a Config to themselves. Before a
// run starts, the configs of every step naming the same model are folded into a
// single NewVersionRequest, which the Registry turns into a Version record.
package modelcontrol
