// Package validator checks JMeter test plans (.jmx) for the structure and
// configuration a runnable HTTP load test needs.
//
// Validation never modifies the plan. Structural and configuration problems
// are reported as issues and make the plan invalid; missing optional test
// elements (listeners, timers, CSV data sets) only produce recommendations.
//
// # Usage
//
//	result, err := validator.ValidateFile("tests/api.jmx")
//	if err != nil {
//	    return err // missing file or unparsable XML
//	}
//	if !result.Valid {
//	    for _, issue := range result.Issues {
//	        fmt.Println(issue)
//	    }
//	}
package validator
