// Package config provides configuration parsing for obsedit.
//
// The configuration is stored in obsedit.json. Every field is optional.
//
//	{
//	  "text": "hello world",
//	  "logLevel": "debug",
//	  "server": {
//	    "host": "localhost",
//	    "port": 7420
//	  },
//	  "telemetry": {
//	    "namespace": "obsedit",
//	    "tracer": "github.com/obsedit/obsedit"
//	  },
//	  "snapshot": {
//	    "target": "s3://bucket/sessions/demo.json",
//	    "region": "eu-west-1",
//	    "endpoint": "http://localhost:9000"
//	  }
//	}
//
// OBSEDIT_LOG_LEVEL overrides logLevel.
package config
