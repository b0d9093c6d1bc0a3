/*
Package updater applies a differ.SpecDiff to an existing JMeter test plan.

Only the samplers named by the diff are touched; everything else a user added
to the plan (timers, extractors, data sets, edited samplers) is preserved.

An update runs in these steps:

 1. Backup: the plan is copied through the BackupStore. A failure aborts
    before anything is read.
 2. Parse: the plan must have a jmeterTestPlan root and a ThreadGroup
    followed by its hashTree; otherwise a *jmxerrors.ParseError is returned.
 3. Index: HTTPSamplerProxy elements are keyed by HTTPSampler.path and
    HTTPSampler.method. JMeter variables index by name, so /pets/${id}
    matches the spec path /pets/{id}.
 4. Mutate: added endpoints get a new sampler plus a response code assertion
    (POST 201, DELETE 204, otherwise 200); removed endpoints have their
    sampler disabled and commented; an operation id change renames the
    sampler. Each endpoint is handled in isolation and failures are
    collected in UpdateResult.Errors.
 5. Persist: the tree is re-indented and written atomically.

Any failure after the backup, including a panic, restores the plan from the
backup and returns a *jmxerrors.UpdateError.
*/
package updater
