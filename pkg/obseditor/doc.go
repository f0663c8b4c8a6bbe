// Package obseditor exposes an editor's state as observables.
//
//	obs := obseditor.New(ed)
//	defer obs.Dispose()
//
//	d := observable.AutorunHandleChanges(observable.HandleChangeOptions[struct{}]{
//	    HandleChange: func(ctx observable.ChangeContext, _ *struct{}) bool {
//	        switch c := obseditor.Classify(ctx, obs); c.Kind {
//	        case obseditor.KindSelections:
//	            fmt.Println("selection changed by", c.Source)
//	        }
//	        return true
//	    },
//	}, func(r observable.Reader, _ struct{}) {
//	    fmt.Println(obs.Selections.Read(r), obs.VersionID.Read(r))
//	})
//
// Every editor update scope is one observable transaction, so a single
// keystroke that edits the model several times re-runs readers once.
package obseditor
