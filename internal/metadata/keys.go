package metadata

// Default key selections for the two JSON documents inside a run dump.
// Dotted keys are nested lookups.

// DefaultWorkflowKeys selects the run lifecycle fields from workflow.json.
func DefaultWorkflowKeys() []string {
	return []string{
		"status",
		"repository",
		"id",
		"submit",
		"start",
		"complete",
		"dateCreated",
		"lastUpdated",
		"runName",
		"projectName",
		"commitId",
		"sessionId",
		"userName",
		"commandLine",
		"params",
		"configFiles",
		"configText",
		"duration",
		"params.input",
		"params.outdir",
	}
}

// DefaultLoadKeys selects the resource usage fields from workflow-load.json.
func DefaultLoadKeys() []string {
	return []string{
		"cpuEfficiency",
		"memoryEfficiency",
		"cost",
		"readBytes",
		"writeBytes",
		"peakCpus",
		"peakMemory",
		"dateCreated",
		"lastUpdated",
	}
}
